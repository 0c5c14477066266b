package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Field is a canonical column of the normalized schema.
type Field string

const (
	FieldRideID           Field = "ride_id"
	FieldBikeType         Field = "bike_type"
	FieldRiderType        Field = "rider_type"
	FieldStartTime        Field = "start_time"
	FieldEndTime          Field = "end_time"
	FieldStartLat         Field = "start_lat"
	FieldStartLng         Field = "start_lng"
	FieldEndLat           Field = "end_lat"
	FieldEndLng           Field = "end_lng"
	FieldStartStationID   Field = "start_station_id"
	FieldStartStationName Field = "start_station_name"
	FieldEndStationID     Field = "end_station_id"
	FieldEndStationName   Field = "end_station_name"

	FieldCrashID            Field = "crash_id"
	FieldCrashTimestamp     Field = "crash_timestamp"
	FieldCrashDate          Field = "crash_date"
	FieldCrashTime          Field = "crash_time"
	FieldLatitude           Field = "latitude"
	FieldLongitude          Field = "longitude"
	FieldBorough            Field = "borough"
	FieldCyclistsInjured    Field = "cyclists_injured"
	FieldCyclistsKilled     Field = "cyclists_killed"
	FieldContributingFactor Field = "contributing_factor"
	FieldVehicleType        Field = "vehicle_type"
)

var tripRequired = []Field{
	FieldRideID, FieldBikeType, FieldRiderType,
	FieldStartTime, FieldEndTime,
	FieldStartLat, FieldStartLng, FieldEndLat, FieldEndLng,
}

// DefaultTripAliases covers the Citi Bike exports since 2021, the 2013-2020
// Citi Bike layout and the Divvy layout.
var DefaultTripAliases = map[string]Field{
	"ride_id":   FieldRideID,
	"trip_id":   FieldRideID,
	"tripid":    FieldRideID,
	"rental_id": FieldRideID,

	"rideable_type": FieldBikeType,
	"bike_type":     FieldBikeType,
	"biketype":      FieldBikeType,

	"member_casual": FieldRiderType,
	"usertype":      FieldRiderType,
	"user_type":     FieldRiderType,
	"rider_type":    FieldRiderType,
	"member_type":   FieldRiderType,

	"started_at": FieldStartTime,
	"starttime":  FieldStartTime,
	"start_time": FieldStartTime,
	"start_date": FieldStartTime,

	"ended_at":  FieldEndTime,
	"stoptime":  FieldEndTime,
	"stop_time": FieldEndTime,
	"end_time":  FieldEndTime,
	"end_date":  FieldEndTime,

	"start_lat":               FieldStartLat,
	"start_latitude":          FieldStartLat,
	"start_station_latitude":  FieldStartLat,
	"start_lng":               FieldStartLng,
	"start_lon":               FieldStartLng,
	"start_longitude":         FieldStartLng,
	"start_station_longitude": FieldStartLng,

	"end_lat":               FieldEndLat,
	"end_latitude":          FieldEndLat,
	"end_station_latitude":  FieldEndLat,
	"end_lng":               FieldEndLng,
	"end_lon":               FieldEndLng,
	"end_longitude":         FieldEndLng,
	"end_station_longitude": FieldEndLng,

	"start_station_id":   FieldStartStationID,
	"from_station_id":    FieldStartStationID,
	"start_station_name": FieldStartStationName,
	"from_station_name":  FieldStartStationName,
	"end_station_id":     FieldEndStationID,
	"to_station_id":      FieldEndStationID,
	"end_station_name":   FieldEndStationName,
	"to_station_name":    FieldEndStationName,
}

// DefaultCrashAliases covers the NYPD motor vehicle collision export and
// its preprocessed variant with a combined CRASH_DATETIME column.
var DefaultCrashAliases = map[string]Field{
	"collision_id":    FieldCrashID,
	"crash_id":        FieldCrashID,
	"crash_record_id": FieldCrashID,

	"crash_datetime":  FieldCrashTimestamp,
	"crash_timestamp": FieldCrashTimestamp,
	"crash_date":      FieldCrashDate,
	"crash_time":      FieldCrashTime,

	"latitude":  FieldLatitude,
	"lat":       FieldLatitude,
	"longitude": FieldLongitude,
	"lng":       FieldLongitude,
	"lon":       FieldLongitude,

	"borough": FieldBorough,

	"number_of_cyclist_injured": FieldCyclistsInjured,
	"number_of_cyclist_killed":  FieldCyclistsKilled,

	"contributing_factor_vehicle_1": FieldContributingFactor,
	"contributing_factor_vehicle_2": FieldContributingFactor,
	"contributing_factor_vehicle_3": FieldContributingFactor,
	"contributing_factor_vehicle_4": FieldContributingFactor,
	"contributing_factor_vehicle_5": FieldContributingFactor,

	"vehicle_type_code_1": FieldVehicleType,
	"vehicle_type_code_2": FieldVehicleType,
	"vehicle_type_code_3": FieldVehicleType,
	"vehicle_type_code_4": FieldVehicleType,
	"vehicle_type_code_5": FieldVehicleType,
}

var knownFields = map[Field]bool{}

func init() {
	for _, f := range DefaultTripAliases {
		knownFields[f] = true
	}
	for _, f := range DefaultCrashAliases {
		knownFields[f] = true
	}
}

// ColumnMap maps normalized source column names onto canonical fields.
type ColumnMap struct {
	aliases map[string]Field
}

// NewColumnMap copies base and layers extra on top. Extra entries are given
// as {source column -> canonical field name}; an unknown canonical name is
// an error.
func NewColumnMap(base map[string]Field, extra map[string]string) (*ColumnMap, error) {
	m := &ColumnMap{aliases: make(map[string]Field, len(base)+len(extra))}
	for k, v := range base {
		m.aliases[NormalizeColumn(k)] = v
	}
	for k, v := range extra {
		f := Field(NormalizeColumn(v))
		if !knownFields[f] {
			return nil, fmt.Errorf("column alias %q: unknown canonical field %q", k, v)
		}
		m.aliases[NormalizeColumn(k)] = f
	}
	return m, nil
}

// Lookup returns the canonical field for a raw source column name.
func (m *ColumnMap) Lookup(column string) (Field, bool) {
	f, ok := m.aliases[NormalizeColumn(column)]
	return f, ok
}

// NormalizeColumn lower-cases a header cell and folds spaces and dashes to
// underscores, so "CRASH DATE" and "crash-date" both become "crash_date".
func NormalizeColumn(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	underscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '_' || r == '\t' {
			if !underscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			underscore = true
			continue
		}
		underscore = false
		b.WriteRune(r)
	}
	return strings.TrimSuffix(b.String(), "_")
}

// columns is a resolved header: canonical field -> source column indexes in
// header order.
type columns struct {
	index map[Field][]int
	width int
}

func (m *ColumnMap) resolve(header []string) columns {
	c := columns{index: make(map[Field][]int), width: len(header)}
	for i, h := range header {
		if f, ok := m.Lookup(h); ok {
			c.index[f] = append(c.index[f], i)
		}
	}
	return c
}

func (c columns) has(f Field) bool {
	return len(c.index[f]) > 0
}

func (c columns) missing(required []Field) []string {
	var out []string
	for _, f := range required {
		if !c.has(f) {
			out = append(out, string(f))
		}
	}
	sort.Strings(out)
	return out
}

// get returns the first non-missing value among the columns mapped to f.
func (c columns) get(rec []string, f Field) string {
	for _, i := range c.index[f] {
		if v := strings.TrimSpace(rec[i]); !isMissing(v) {
			return v
		}
	}
	return ""
}

// all returns every non-missing value among the columns mapped to f.
func (c columns) all(rec []string, f Field) []string {
	var out []string
	for _, i := range c.index[f] {
		if v := strings.TrimSpace(rec[i]); !isMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func isMissing(v string) bool {
	switch strings.ToLower(v) {
	case "", "na", "nan", "null", "none":
		return true
	}
	return false
}
