// Package testdata provides recorded hand landmark fixtures for tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/signspeak/internal/detector"
)

//go:embed hands/*.json labels.txt
var fixturesFS embed.FS

// LabelsPath is the label catalog fixture, relative to this directory.
const LabelsPath = "labels.txt"

// LoadHand loads a hand fixture by name, without the .json extension.
func LoadHand(name string) (detector.Hand, error) {
	data, err := fixturesFS.ReadFile("hands/" + name + ".json")
	if err != nil {
		return detector.Hand{}, fmt.Errorf("load hand %s: %w", name, err)
	}

	var hand detector.Hand
	if err := json.Unmarshal(data, &hand); err != nil {
		return detector.Hand{}, fmt.Errorf("decode hand %s: %w", name, err)
	}
	return hand, nil
}

// LoadHands loads every hand fixture keyed by name.
func LoadHands() (map[string]detector.Hand, error) {
	entries, err := fixturesFS.ReadDir("hands")
	if err != nil {
		return nil, err
	}

	hands := make(map[string]detector.Hand, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		hand, err := LoadHand(name)
		if err != nil {
			return nil, err
		}
		hands[name] = hand
	}
	return hands, nil
}

// Labels returns the label catalog fixture contents.
func Labels() ([]byte, error) {
	return fixturesFS.ReadFile(LabelsPath)
}
