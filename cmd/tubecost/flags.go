package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// parseFlags extracts --name VALUE and --name=VALUE pairs for the given names
// and returns the remaining positional arguments
func parseFlags(args []string, names ...string) (map[string]string, []string, error) {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	flags := make(map[string]string)
	var remainingArgs []string

	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			remainingArgs = append(remainingArgs, arg)
			i++
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !known[name] {
			return nil, nil, fmt.Errorf("unknown flag --%s", name)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("flag --%s needs a value", name)
			}
			value = args[i+1]
			i++
		}
		flags[name] = value
		i++
	}

	return flags, remainingArgs, nil
}

// floatFlag reads a numeric flag; def is used when it is absent
func floatFlag(flags map[string]string, name string, def float64) (float64, error) {
	raw, ok := flags[name]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q", name, raw)
	}
	return v, nil
}

// decimalFlag reads an optional decimal flag
func decimalFlag(flags map[string]string, name string) (decimal.NullDecimal, error) {
	raw, ok := flags[name]
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid --%s %q", name, raw)
	}
	return decimal.NewNullDecimal(d), nil
}

func parseRate(raw string) (decimal.NullDecimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid --rate %q", raw)
	}
	return decimal.NewNullDecimal(d), nil
}
