package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"SharedBoard/internal/state"
)

// WriteJSON writes cmds as an indented JSON array.
func WriteJSON(w io.Writer, cmds []state.StrokeCommand) error {
	if cmds == nil {
		cmds = []state.StrokeCommand{}
	}
	data, err := json.MarshalIndent(cmds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal drawing: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write drawing: %w", err)
	}
	return nil
}

// ReadJSON reads a drawing written by WriteJSON. Entries that cannot be
// drawn are dropped.
func ReadJSON(r io.Reader) ([]state.StrokeCommand, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read drawing: %w", err)
	}
	var cmds []state.StrokeCommand
	if err := json.Unmarshal(data, &cmds); err != nil {
		return nil, fmt.Errorf("parse drawing: %w", err)
	}
	out := cmds[:0]
	for _, c := range cmds {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out, nil
}

func SaveFile(path string, cmds []state.StrokeCommand) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, cmds); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func LoadFile(path string) ([]state.StrokeCommand, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
