package domain

import (
	"sort"
	"strings"
)

// City is one of the fixed Kosovo municipalities the API filters by
type City string

// CityAll is the "no city filter" sentinel
const CityAll City = "ALL"

const (
	CityPrishtina   City = "Prishtina"
	CityPrizren     City = "Prizren"
	CityPeja        City = "Peja"
	CityGjilan      City = "Gjilan"
	CityMitrovica   City = "Mitrovica"
	CityFerizaj     City = "Ferizaj"
	CityGjakova     City = "Gjakova"
	CityPodujeva    City = "Podujeva"
	CityVushtrri    City = "Vushtrri"
	CitySuhareka    City = "Suhareka"
	CityRahovec     City = "Rahovec"
	CityLipjan      City = "Lipjan"
	CityMalisheva   City = "Malisheva"
	CityKamenica    City = "Kamenica"
	CityIstog       City = "Istog"
	CityKline       City = "Kline"
	CitySkenderaj   City = "Skenderaj"
	CityViti        City = "Viti"
	CityDecan       City = "Deçan"
	CityDragash     City = "Dragash"
	CityFusheKosova City = "FushëKosova"
	CityKacanik     City = "Kaçanik"
	CityObiliq      City = "Obiliq"
	CityShtime      City = "Shtime"
	CityShterpce    City = "Shtërpcë"
	CityZubinPotok  City = "ZubinPotok"
	CityZvecan      City = "Zveçan"
)

var cities = []City{
	CityPrishtina, CityPrizren, CityPeja, CityGjilan, CityMitrovica, CityFerizaj,
	CityGjakova, CityPodujeva, CityVushtrri, CitySuhareka, CityRahovec, CityLipjan,
	CityMalisheva, CityKamenica, CityIstog, CityKline, CitySkenderaj, CityViti,
	CityDecan, CityDragash, CityFusheKosova, CityKacanik, CityObiliq, CityShtime,
	CityShterpce, CityZubinPotok, CityZvecan,
}

var cityIndex = func() map[string]City {
	m := make(map[string]City, len(cities))
	for _, c := range cities {
		m[strings.ToLower(string(c))] = c
	}
	return m
}()

// Cities returns the known cities in display order
func Cities() []City {
	out := make([]City, len(cities))
	copy(out, cities)
	return out
}

// IsValid reports whether c is exactly one of the known city names.
// CityAll is not a city.
func (c City) IsValid() bool {
	known, ok := cityIndex[strings.ToLower(string(c))]
	return ok && known == c
}

// IsFilter reports whether c can be used as a list filter (a city or CityAll)
func (c City) IsFilter() bool {
	return c == CityAll || c.IsValid()
}

// ParseCity resolves a user-typed name case-insensitively. Empty input and
// "all" map to CityAll.
func ParseCity(s string) (City, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(CityAll)) {
		return CityAll, nil
	}
	if c, ok := cityIndex[strings.ToLower(s)]; ok {
		return c, nil
	}
	return "", ErrInvalidCity
}

// MatchCities returns the cities whose name contains fragment, sorted
func MatchCities(fragment string) []City {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return Cities()
	}

	var out []City
	for _, c := range cities {
		if strings.Contains(strings.ToLower(string(c)), fragment) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
