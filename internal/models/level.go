package models

// Level is one entry of the list as stored in <path>.json.
// Rank is not stored; it is the level's 1-based position in list.json.
type Level struct {
	ID               int      `json:"id"`
	Name             string   `json:"name" validate:"required"`
	Description      string   `json:"description,omitempty"`
	Author           string   `json:"author"`
	Creators         []string `json:"creators"`
	Verifier         string   `json:"verifier"`
	Verification     string   `json:"verification"`
	Showcase         string   `json:"showcase,omitempty"`
	SongID           string   `json:"songID,omitempty"`
	Password         string   `json:"password,omitempty"`
	PercentToQualify float64  `json:"percentToQualify" validate:"gte=0,lte=100"`
	Records          []Record `json:"records"`

	// Path is the list.json entry the level was loaded from.
	Path string `json:"path"`
}

// Record is one player's best submission on a level.
type Record struct {
	User    string  `json:"user" validate:"required"`
	Percent float64 `json:"percent" validate:"gt=0,lte=100"`
	Link    string  `json:"link" validate:"omitempty,url"`
	Mobile  bool    `json:"mobile,omitempty"`
}

// Completed reports whether the record is a full completion.
func (r Record) Completed() bool {
	return r.Percent == 100
}

// Editor is a list staff member from editors.json.
type Editor struct {
	Role string `json:"role" validate:"required"`
	Name string `json:"name" validate:"required"`
	Link string `json:"link,omitempty"`
}

// LevelResult is the outcome of loading the level at one list position.
// Exactly one of Level and Err is set; Path is always set and doubles as
// the error token reported for failed levels.
type LevelResult struct {
	Path  string
	Level *Level
	Err   error
}

// Failed reports whether the level could not be loaded.
func (r LevelResult) Failed() bool {
	return r.Err != nil || r.Level == nil
}
