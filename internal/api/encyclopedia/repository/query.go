package encyclopediaRepository

const (
	querySchema = `
		CREATE TABLE IF NOT EXISTS encyclopedia_entries (
			id          BIGSERIAL PRIMARY KEY,
			place       TEXT NOT NULL,
			name        TEXT NOT NULL,
			image       TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_encyclopedia_entries_place ON encyclopedia_entries (place);
		CREATE TABLE IF NOT EXISTS location_records (
			id         BIGSERIAL PRIMARY KEY,
			lat        DOUBLE PRECISION NOT NULL,
			lon        DOUBLE PRECISION NOT NULL,
			image      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	queryAppendEntry = `
		INSERT INTO encyclopedia_entries (
			place,
			name,
			image,
			description
		) VALUES (
			:place,
			:name,
			:image,
			:description
		)
	`

	queryListByPlace = `
		SELECT
			name
		FROM encyclopedia_entries
		WHERE place = :place
		ORDER BY id
	`

	queryGetEntry = `
		SELECT
			place,
			name,
			image,
			description
		FROM encyclopedia_entries
		WHERE place = :place AND name = :name
		ORDER BY id
		LIMIT 1
	`

	queryListPlaces = `
		SELECT
			place
		FROM encyclopedia_entries
		GROUP BY place
		ORDER BY MIN(id)
	`

	queryAppendLocation = `
		INSERT INTO location_records (
			lat,
			lon,
			image
		) VALUES (
			:lat,
			:lon,
			:image
		)
	`

	queryListLocations = `
		SELECT
			lat,
			lon,
			image
		FROM location_records
		ORDER BY id
	`
)
