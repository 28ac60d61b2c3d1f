package tnplot

import (
	"fmt"
	"strconv"
	"strings"
)

// FloatArrayFlags collects repeated float flag values, e.g. custom bin
// edges. Setting the flag discards any default array.
type FloatArrayFlags struct {
	Array   []float64
	beenSet bool
}

func (f *FloatArrayFlags) Set(valueStr string) error {
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return err
	}

	if !f.beenSet {
		f.beenSet = true
		f.Array = nil
	}

	f.Array = append(f.Array, value)
	return nil
}

func (f *FloatArrayFlags) String() string {
	return fmt.Sprint(f.Array)
}

// StringArrayFlags collects repeated string flag values, e.g. filter names.
type StringArrayFlags struct {
	Array   []string
	beenSet bool
}

func (f *StringArrayFlags) Set(value string) error {
	if !f.beenSet {
		f.beenSet = true
		f.Array = nil
	}

	f.Array = append(f.Array, value)
	return nil
}

func (f *StringArrayFlags) String() string {
	return fmt.Sprint(f.Array)
}

// RegionFlags collects repeated name:etamin:etamax flag values into an eta
// region set.
type RegionFlags struct {
	Regions EtaRegions
	beenSet bool
}

func (f *RegionFlags) Set(value string) error {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return fmt.Errorf("region %q: want name:etamin:etamax", value)
	}
	lo, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return err
	}
	hi, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return err
	}

	if !f.beenSet {
		f.beenSet = true
		f.Regions = EtaRegions{}
	}

	f.Regions[parts[0]] = EtaRegion{Lo: lo, Hi: hi}
	return nil
}

func (f *RegionFlags) String() string {
	return fmt.Sprint(f.Regions)
}
