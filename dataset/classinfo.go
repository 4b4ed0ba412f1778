package dataset

import (
	"fmt"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Class-information artifacts carry human-readable metadata per class name
// (descriptions, WordNet ids, display labels). The engine never interprets
// them; they are loaded here and attached to a catalog pass-through.

// LoadClassInfo reads a binary protobuf Struct artifact keyed by class name.
func LoadClassInfo(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: reading class info %s: %w", path, err)
	}
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("dataset: parsing class info %s: %w", path, err)
	}
	return st.AsMap(), nil
}

// SaveClassInfo writes a class-information artifact in the format
// LoadClassInfo reads. Values must be representable as structpb values
// (strings, numbers, bools, nested maps and lists).
func SaveClassInfo(path string, info map[string]any) error {
	st, err := structpb.NewStruct(info)
	if err != nil {
		return fmt.Errorf("dataset: encoding class info: %w", err)
	}
	b, err := proto.Marshal(st)
	if err != nil {
		return fmt.Errorf("dataset: marshaling class info: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("dataset: writing class info %s: %w", path, err)
	}
	return nil
}
