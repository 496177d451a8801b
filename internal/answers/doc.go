// Package answers reads and writes the per-instance answers files that record
// what was last rendered into a project.
//
// Each physical template owns one state directory in the project root named
// after the repository (".template-infra/"). Inside it, every instance has one
// YAML file named "<app>.yml" when the instance is singular for that app, or
// "<template>-<app>.yml" otherwise.
//
// Key concepts:
//   - Record: source URI, version token and free-form data of one instance
//   - Location: the project-relative answers file path of an instance
//   - Store: file-backed reads, discovery, and migration-time writes
package answers
