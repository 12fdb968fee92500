package playback

import "strings"

// Field identifies an observable store field. Fields combine as a bitmask.
type Field uint32

const (
	FieldQueue          Field = 1 << iota // Queue contents
	FieldCurrentIndex                     // Current index
	FieldCurrentEntry                     // Identity of the current entry
	FieldSrc                              // Resolved playable URL
	FieldVolume                           // Output volume
	FieldRequestedState                   // Requested transport state
	FieldReportedState                    // Reported transport state
	FieldRequestedSeek                    // Pending seek position
	FieldCurrentTime                      // Last known playback position
	FieldDuration                         // Duration of the current track
	FieldLoading                          // Loading flag
	FieldError                            // Error flag, kind and message

	FieldNone Field = 0
	FieldAll  Field = FieldError<<1 - 1
)

var fieldNames = []string{
	"queue",
	"current_index",
	"current_entry",
	"src",
	"volume",
	"requested_state",
	"reported_state",
	"requested_seek",
	"current_time",
	"duration",
	"loading",
	"error",
}

// Has reports whether any of the given fields are set.
func (f Field) Has(other Field) bool {
	return f&other != 0
}

// String returns a "|"-separated list of field names.
func (f Field) String() string {
	if f == FieldNone {
		return "none"
	}
	var names []string
	for i, name := range fieldNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}
