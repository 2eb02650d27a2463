package cache

import "fmt"

// Key builders are pure functions so every caller derives the same key from
// the same inputs. Invalidation uses the same builders, never literals.

// ActiveProgramsKey caches the full active-program snapshot.
func ActiveProgramsKey() string { return "programs:active" }

// ProgramKey caches one program document by id.
func ProgramKey(programID string) string {
	return fmt.Sprintf("programs:%s", programID)
}

// ProgramPattern matches every program-related key, snapshot included.
func ProgramPattern() string { return "programs:*" }
