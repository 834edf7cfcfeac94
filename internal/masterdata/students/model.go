package students

// Student is one enrolled student. IsNew distinguishes first-year students
// from returning ones, which selects the tariff sub-amount during pricing.
type Student struct {
	ID        int64  `json:"id"`
	Matricule string `json:"matricule"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ClassID   int64  `json:"class_id"`
	IsNew     bool   `json:"is_new"`
	Active    bool   `json:"active"`
}
