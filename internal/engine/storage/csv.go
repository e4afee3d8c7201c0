package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/templestay/internal/model"
)

// CSVHeader is the column layout written by WriteCSV. ReadCSV locates columns by
// name, so extra or reordered columns are fine.
var CSVHeader = []string{
	"id", "kind", "name", "region", "address", "lat", "lng",
	"follower_count", "tags", "price", "created_at", "description",
}

// ReadCSV parses venues from a CSV file with a header row.
func ReadCSV(r io.Reader) ([]model.Venue, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	cols, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	var venues []model.Venue
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		v, err := parseRow(get)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		venues = append(venues, v)
	}
	return venues, nil
}

// requiredColumns must appear in every import header.
var requiredColumns = []string{"kind", "name"}

// readHeader maps lower-cased column names to their index. A leading UTF-8 BOM,
// as written by spreadsheet exports, is dropped.
func readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty CSV: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return cols, nil
}

// CheckCSVHeader reads only the header row and reports whether ReadCSV could use it.
func CheckCSVHeader(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	_, err := readHeader(reader)
	return err
}

func parseRow(get func(string) string) (model.Venue, error) {
	kind, err := model.ParseKind(get("kind"))
	if err != nil || kind == model.KindAll {
		return model.Venue{}, fmt.Errorf("invalid kind %q", get("kind"))
	}
	name := get("name")
	if name == "" {
		return model.Venue{}, fmt.Errorf("name is required")
	}

	v := model.Venue{
		ID:          get("id"),
		Kind:        kind,
		Name:        name,
		Region:      get("region"),
		Address:     get("address"),
		Description: get("description"),
		Tags:        ParseTags(get("tags")),
		CreatedAt:   ParseTime(get("created_at")),
	}

	latStr, lngStr := get("lat"), get("lng")
	if latStr != "" && lngStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return model.Venue{}, fmt.Errorf("invalid latitude: %s", latStr)
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return model.Venue{}, fmt.Errorf("invalid longitude: %s", lngStr)
		}
		c := model.Coordinate{Lat: lat, Lng: lng}
		if !c.Valid() {
			return model.Venue{}, fmt.Errorf("coordinate out of range: %s", c)
		}
		v.Coordinate = &c
	}

	if s := get("follower_count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return model.Venue{}, fmt.Errorf("invalid follower_count: %s", s)
		}
		if n > 0 {
			v.PopularityScore = n
		}
	}

	if s := get("price"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil {
			return model.Venue{}, fmt.Errorf("invalid price: %s", s)
		}
		v.PriceTier = &p
	}
	return v, nil
}

// WriteCSV writes venues using CSVHeader.
func WriteCSV(w io.Writer, venues []model.Venue) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for _, v := range venues {
		lat, lng := "", ""
		if v.Coordinate != nil {
			lat = fmt.Sprintf("%.6f", v.Coordinate.Lat)
			lng = fmt.Sprintf("%.6f", v.Coordinate.Lng)
		}
		price := ""
		if v.PriceTier != nil {
			price = strconv.Itoa(*v.PriceTier)
		}
		tags := v.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, _ := json.Marshal(tags)
		created := ""
		if !v.CreatedAt.IsZero() {
			created = v.CreatedAt.UTC().Format(time.RFC3339)
		}

		err := cw.Write([]string{
			v.ID,
			string(v.Kind),
			v.Name,
			v.Region,
			v.Address,
			lat,
			lng,
			strconv.Itoa(v.PopularityScore),
			string(tagsJSON),
			price,
			created,
			v.Description,
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
