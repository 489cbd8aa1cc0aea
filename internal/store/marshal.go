package store

import (
	"fmt"

	"github.com/roach88/resumable/internal/snapshot"
)

// marshalState converts a snapshot State to compact JSON TEXT for storage.
// The text is stored unescaped; escaping only applies inside documents.
func marshalState(st *snapshot.State) (string, error) {
	if st == nil {
		return "", fmt.Errorf("marshal state: nil state")
	}
	data, err := st.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

// unmarshalState parses JSON TEXT written by marshalState.
func unmarshalState(data string) (*snapshot.State, error) {
	var st snapshot.State
	if err := st.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
