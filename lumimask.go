package tnplot

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// LumiMask is the certified-good (run, lumi) ranges from a golden JSON
// file: run number to inclusive luminosity-block intervals.
type LumiMask map[uint32][][2]uint32

// LoadLumiMask parses a golden JSON file of the form
// {"273158": [[1, 1279], ...], ...}.
func LoadLumiMask(path string) (LumiMask, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tnplot: reading golden json: %w", err)
	}
	var doc map[string][][2]uint32
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("tnplot: parsing golden json %s: %w", path, err)
	}
	mask := make(LumiMask, len(doc))
	for runStr, ranges := range doc {
		run, err := strconv.ParseUint(runStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("tnplot: golden json %s: bad run number %q", path, runStr)
		}
		for _, r := range ranges {
			if r[0] > r[1] {
				return nil, fmt.Errorf("tnplot: golden json %s: run %s has inverted lumi range [%d, %d]", path, runStr, r[0], r[1])
			}
		}
		mask[uint32(run)] = ranges
	}
	return mask, nil
}

// Mask reports, per event, whether its (run, lumi) pair is certified good.
func (m LumiMask) Mask(runs, lumis []uint32) []bool {
	good := make([]bool, len(runs))
	for i := range runs {
		for _, r := range m[runs[i]] {
			if lumis[i] >= r[0] && lumis[i] <= r[1] {
				good[i] = true
				break
			}
		}
	}
	return good
}
