package classes

// Class represents one teaching class (e.g. "6ème A") of the school.
type Class struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Level  string `json:"level"`
	Active bool   `json:"active"`
}
