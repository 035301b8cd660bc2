package weather

// Source supplies the weather series used for a named farm
type Source interface {
	WeatherFor(farm string) (*Series, error)
}

// WeatherFor makes a single Series usable as a Source for every farm
func (s *Series) WeatherFor(string) (*Series, error) {
	return s, nil
}

// MapSource maps farm names to their own series. Farms without an entry use Fallback.
type MapSource struct {
	Series   map[string]*Series
	Fallback *Series
}

// WeatherFor returns the series registered for farm, or the fallback
func (m MapSource) WeatherFor(farm string) (*Series, error) {
	if s, ok := m.Series[farm]; ok {
		return s, nil
	}
	if m.Fallback != nil {
		return m.Fallback, nil
	}
	return nil, &MissingInputError{Variable: WindSpeed, Reason: "no weather series for farm " + farm}
}
