package identifier

// Source pairs a file label with optional structured metadata.
type Source struct {
	// Label is the file identity, usually the original file name.
	Label string

	// Meta is authoritative when set; otherwise the label is parsed.
	Meta *FileMeta
}

// Metadata returns the structured metadata for the source, falling back to
// the legacy label parser. The boolean reports whether a station is known.
func (s Source) Metadata() (FileMeta, bool) {
	if s.Meta != nil {
		return *s.Meta, s.Meta.StationID != ""
	}
	return ParseLabel(s.Label)
}

// StationID returns the station the source belongs to, or "" if unknown.
func (s Source) StationID() string {
	meta, ok := s.Metadata()
	if !ok {
		return ""
	}
	return meta.StationID
}

// IsDiurnal reports whether the source is a 24-hour cycle file with a known
// station and recording window.
func (s Source) IsDiurnal() bool {
	meta, ok := s.Metadata()
	return ok && meta.Diurnal && meta.DateToken() != ""
}

// AllDiurnal reports whether every source is a diurnal-cycle file.
// An empty list is not considered diurnal.
func AllDiurnal(sources []Source) bool {
	if len(sources) == 0 {
		return false
	}
	for _, s := range sources {
		if !s.IsDiurnal() {
			return false
		}
	}
	return true
}

// Resolve maps each source label to a short tag used in qualified column names.
//
// For a set of diurnal-cycle files the tag is built from whichever of station
// and date varies across files. Everything else falls back to the date-range
// token, or to the label without its extension.
func Resolve(sources []Source) map[string]string {
	tags := make(map[string]string, len(sources))

	if AllDiurnal(sources) {
		metas := make([]FileMeta, len(sources))
		for i, s := range sources {
			metas[i], _ = s.Metadata()
		}

		stationsDiffer := !allEqual(metas, func(m FileMeta) string { return m.StationID })
		datesDiffer := !allEqual(metas, func(m FileMeta) string { return m.DateToken() })

		if stationsDiffer {
			for i, s := range sources {
				if datesDiffer {
					tags[s.Label] = metas[i].DateToken() + "_" + metas[i].StationID
				} else {
					tags[s.Label] = metas[i].StationID
				}
			}
			return tags
		}
	}

	for _, s := range sources {
		tags[s.Label] = defaultTag(s)
	}
	return tags
}

// ResolveLabels is Resolve for bare labels without structured metadata.
func ResolveLabels(labels ...string) map[string]string {
	sources := make([]Source, len(labels))
	for i, l := range labels {
		sources[i] = Source{Label: l}
	}
	return Resolve(sources)
}

func defaultTag(s Source) string {
	if s.Meta != nil {
		if token := s.Meta.DateToken(); token != "" {
			return token
		}
		return StripExtension(s.Label)
	}
	if m := dateRangeRe.FindString(s.Label); m != "" {
		return m
	}
	return StripExtension(s.Label)
}

func allEqual(metas []FileMeta, key func(FileMeta) string) bool {
	for i := 1; i < len(metas); i++ {
		if key(metas[i]) != key(metas[0]) {
			return false
		}
	}
	return true
}
