package entity

type EncyclopediaEntry struct {
	Place       string `db:"place"`
	Name        string `db:"name"`
	Image       string `db:"image"`
	Description string `db:"description"`
}

type LocationRecord struct {
	Lat   float64 `db:"lat"`
	Lon   float64 `db:"lon"`
	Image string  `db:"image"`
}
