// Package factory builds bank adapters by bank id.
package factory

import (
	"fmt"
	"sort"

	"fjacquet/bankfeed/internal/axisparser"
	"fjacquet/bankfeed/internal/hdfcparser"
	"fjacquet/bankfeed/internal/iciciparser"
	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/parser"
	"fjacquet/bankfeed/internal/sbiparser"
)

// BankType identifies a supported bank export.
type BankType string

const (
	HDFC  BankType = hdfcparser.BankID
	ICICI BankType = iciciparser.BankID
	SBI   BankType = sbiparser.BankID
	Axis  BankType = axisparser.BankID
)

// BankTypes lists every supported bank in a stable order.
func BankTypes() []BankType {
	types := []BankType{HDFC, ICICI, SBI, Axis}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// GetAdapter returns a new adapter for bankType using logger.
func GetAdapter(bankType BankType, logger logging.Logger) (parser.BankAdapter, error) {
	switch bankType {
	case HDFC:
		return hdfcparser.NewAdapter(logger), nil
	case ICICI:
		return iciciparser.NewAdapter(logger), nil
	case SBI:
		return sbiparser.NewAdapter(logger), nil
	case Axis:
		return axisparser.NewAdapter(logger), nil
	default:
		return nil, fmt.Errorf("unknown bank type: %s", bankType)
	}
}

// AllAdapters returns one adapter per supported bank.
func AllAdapters(logger logging.Logger) []parser.BankAdapter {
	adapters := make([]parser.BankAdapter, 0, len(BankTypes()))
	for _, bt := range BankTypes() {
		a, err := GetAdapter(bt, logger)
		if err != nil {
			// BankTypes and GetAdapter list the same banks.
			panic(err)
		}
		adapters = append(adapters, a)
	}
	return adapters
}
