package jack

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed stdlib.json
var content string

// StandardLibraryABI holds the signatures (not bodies) of the Jack OS classes
// (Math, String, Array, Output, Screen, Keyboard, Memory, Sys) so that calls
// into them can be lowered without their '.jack' source being on hand.
var StandardLibraryABI = map[string]Class{}

func init() {
	if err := json.Unmarshal([]byte(content), &StandardLibraryABI); err != nil {
		panic(fmt.Sprintf("jack: malformed embedded stdlib.json: %s", err))
	}
}
