package abp

import "sort"

// Code tables from v2.3 of the technical specification. Values are stored
// verbatim by the loader; these tables exist for operator reference and
// are deliberately not enforced during mapping, since Ordnance Survey has
// extended them between specification revisions.

// PostalCodes describes the ADDRESSBASE_POSTAL flag on BLPU records.
var PostalCodes = map[string]string{
	"D": "Record linked to PAF",
	"N": "Not a postal address",
	"C": "Postal record with a parent linked to PAF",
	"L": "Postal record (based on local authority data)",
}

// CountryCodes describes the COUNTRY field on BLPU records.
var CountryCodes = map[string]string{
	"E": "England",
	"W": "Wales",
	"S": "Scotland",
	"N": "Northern Ireland",
	"L": "Channel Islands",
	"M": "Isle of Man",
	"J": "Unassigned",
}

// RPCCodes describes the Representative Point Code on BLPU records.
var RPCCodes = map[string]string{
	"1": "Visual Centre",
	"2": "General Internal Point",
	"3": "SW Corner of referenced 100m grid square",
	"4": "Start of referenced street",
	"5": "General point based on postcode unit",
	"9": "Centre of Contributing Authority area",
}

// BLPUStateCodes describes the BLPU_STATE field on BLPU records.
var BLPUStateCodes = map[string]string{
	"1": "Under construction",
	"2": "In use",
	"3": "Unoccupied, vacant or derelict",
	"4": "Demolished",
	"6": "Planning permission granted",
}

// SortedCodes returns a code table's keys in sorted order for stable
// presentation.
func SortedCodes(table map[string]string) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
