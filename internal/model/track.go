package model

// Track is a distribution channel as reported by the store.
type Track struct {
	Track    string    `json:"track"`
	Releases []Release `json:"releases,omitempty"`
}

// Release mirrors the store's representation, so version codes are strings.
type Release struct {
	Name                string            `json:"name,omitempty"`
	Status              string            `json:"status,omitempty"`
	VersionCodes        []string          `json:"versionCodes,omitempty"`
	UserFraction        float64           `json:"userFraction,omitempty"`
	ReleaseNotes        []LocalizedText   `json:"releaseNotes,omitempty"`
	CountryTargeting    *CountryTargeting `json:"countryTargeting,omitempty"`
	InAppUpdatePriority int64             `json:"inAppUpdatePriority,omitempty"`
}

// CountryTargeting restricts a staged rollout to some countries.
type CountryTargeting struct {
	Countries          []string `json:"countries,omitempty"`
	IncludeRestOfWorld bool     `json:"includeRestOfWorld,omitempty"`
}

type LocalizedText struct {
	Language string `json:"language,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Access is the level of store access an operation needs.
type Access int

const (
	ReadWrite Access = iota
	ReadOnly
)

func (a Access) String() string {
	if a == ReadOnly {
		return "read-only"
	}
	return "read-write"
}
