package recognition

import (
	"fmt"
	"io"

	"github.com/kozaktomas/face-attendance/internal/registry"
)

// Summary prints the attendance results of a session. Registered identities
// that were not recognized are listed as absent.
func Summary(w io.Writer, result Result, snapshot map[int]registry.Identity) {
	fmt.Fprintln(w, "\nAttendance Results:")
	if len(result.Present) == 0 {
		fmt.Fprintln(w, "No registered persons detected.")
	} else {
		fmt.Fprintln(w, "Present:")
		for _, identity := range result.Present {
			fmt.Fprintf(w, "- %s (Roll: %s)\n", identity.DisplayName, identity.ExternalReference)
		}
	}

	present := make(map[int]bool, len(result.Present))
	for _, identity := range result.Present {
		present[identity.ID] = true
	}
	var absent []registry.Identity
	for _, identity := range registry.Sorted(snapshot) {
		if !present[identity.ID] {
			absent = append(absent, identity)
		}
	}
	if len(absent) > 0 {
		fmt.Fprintln(w, "Absent:")
		for _, identity := range absent {
			fmt.Fprintf(w, "- %s (Roll: %s)\n", identity.DisplayName, identity.ExternalReference)
		}
	}

	fmt.Fprintf(w, "Unknown faces: %d, frames scanned: %d\n", result.Unknown, result.Frames)
	if result.SendFailures > 0 {
		fmt.Fprintf(w, "Warning: %d attendance event(s) could not be sent\n", result.SendFailures)
	}
}
