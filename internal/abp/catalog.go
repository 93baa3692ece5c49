// Package abp describes the AddressBase Premium interchange format: the
// record kinds multiplexed into each CSV extract, their positional field
// layouts, and the conversion of raw CSV fields into typed values.
//
// Layouts follow v2.3 of the AddressBase Premium technical specification
// (March 2016). Each line of an extract starts with a two-digit record type
// code; the remaining columns are positional and typed per record kind.
package abp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TimGJ/AddressBasePremium/internal/ddl"
)

// FieldType enumerates the value types used by the v2.3 field layouts.
type FieldType int

const (
	// BigInt holds wide integer identifiers (UPRN, USRN, UDPRN, PRO_ORDER).
	// The specification allows up to 16 digits, beyond 32-bit range.
	BigInt FieldType = iota
	// Int holds small integers (custodian codes, versions, tolerances).
	Int
	// FixedChar holds fixed-width character codes. Values keep their exact
	// text form; numeric-looking codes such as "007" are never normalized.
	FixedChar
	// Decimal holds coordinate and version values with a declared
	// precision and scale.
	Decimal
	// Date holds calendar dates in ISO form (YYYY-MM-DD).
	Date
	// TimeOfDay holds HH:MM:SS timestamps from header and trailer records.
	TimeOfDay
	// Text holds free text up to a declared width.
	Text
)

func (t FieldType) String() string {
	switch t {
	case BigInt:
		return "bigint"
	case Int:
		return "integer"
	case FixedChar:
		return "fixedchar"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case TimeOfDay:
		return "time"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("fieldtype(%d)", int(t))
	}
}

// FieldSpec describes one positional field of a record kind.
//
// Position is the 0-based CSV column the field is read from; column 0 is
// always the record type code, so the first field of every kind sits at
// position 1. Positions are assigned from declaration order when the
// catalog is built.
type FieldSpec struct {
	Name      string
	Position  int
	Type      FieldType
	Size      int // FixedChar and Text width
	Precision int // Decimal digits in total
	Scale     int // Decimal digits after the point
	Nullable  bool
	Index     bool
}

// Column returns the physical column name for the field.
func (f FieldSpec) Column() string { return strings.ToLower(f.Name) }

// Kind describes one record kind: its type code, positional field layout,
// target table and natural key.
type Kind struct {
	Code       string
	Name       string
	Table      string
	Fields     []FieldSpec
	NaturalKey []string

	columns []string
}

// Record type codes from the v2.3 specification.
const (
	CodeHeader           = "10"
	CodeStreet           = "11"
	CodeStreetDescriptor = "15"
	CodeBLPU             = "21"
	CodeApplicationXRef  = "23"
	CodeLPI              = "24"
	CodeDeliveryPoint    = "28"
	CodeMetaData         = "29"
	CodeSuccessorXRef    = "30"
	CodeOrganisation     = "31"
	CodeClassification   = "32"
	CodeTrailer          = "99"
)

// Columns returns the insert column list for the kind, one lower-cased
// column per field in layout order. The surrogate id column is excluded;
// it is assigned by the database.
func (k *Kind) Columns() []string { return k.columns }

// Field returns the spec of the named field, or false if the kind has no
// such field.
func (k *Kind) Field(name string) (FieldSpec, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// TableDef renders the kind's physical table: a bigserial surrogate id
// primary key, one column per field, and non-unique indexes over the
// natural key and the layout's designated lookup fields.
func (k *Kind) TableDef() ddl.TableDef {
	cols := make([]ddl.ColumnDef, 0, len(k.Fields)+1)
	cols = append(cols, ddl.ColumnDef{Name: "id", Type: "bigserial", PrimaryKey: true})
	for _, f := range k.Fields {
		cols = append(cols, ddl.ColumnDef{
			Name:     f.Column(),
			Type:     logicalType(f),
			Nullable: f.Nullable,
		})
	}

	var idx []ddl.IndexDef
	if len(k.NaturalKey) > 0 {
		nk := make([]string, len(k.NaturalKey))
		for i, name := range k.NaturalKey {
			nk[i] = strings.ToLower(name)
		}
		idx = append(idx, ddl.IndexDef{
			Name:    indexName(k.Table, nk),
			Columns: nk,
		})
	}
	for _, f := range k.Fields {
		if !f.Index || coveredByKey(k.NaturalKey, f.Name) {
			continue
		}
		idx = append(idx, ddl.IndexDef{
			Name:    indexName(k.Table, []string{f.Column()}),
			Columns: []string{f.Column()},
		})
	}

	return ddl.TableDef{Name: k.Table, Columns: cols, Indexes: idx}
}

// coveredByKey reports whether the field leads the natural key, in which
// case the key's composite index already serves single-column lookups.
func coveredByKey(key []string, name string) bool {
	return len(key) > 0 && key[0] == name
}

func indexName(table string, cols []string) string {
	return "ix_" + table + "_" + strings.Join(cols, "_")
}

func logicalType(f FieldSpec) string {
	switch f.Type {
	case BigInt:
		return "bigint"
	case Int:
		return "integer"
	case FixedChar:
		return fmt.Sprintf("char(%d)", f.Size)
	case Decimal:
		return fmt.Sprintf("decimal(%d,%d)", f.Precision, f.Scale)
	case Date:
		return "date"
	case TimeOfDay:
		return "char(8)"
	case Text:
		return fmt.Sprintf("varchar(%d)", f.Size)
	default:
		return "varchar(255)"
	}
}

// Catalog is the closed set of record kinds, keyed by type code. It is
// built once at startup and read-only afterwards.
type Catalog struct {
	byCode map[string]*Kind
	kinds  []*Kind
}

// NewCatalog builds and validates the full v2.3 record kind set. An error
// here means the hand-authored layout table is inconsistent and the
// process must not start loading.
func NewCatalog() (*Catalog, error) {
	kinds := []*Kind{
		headerKind(),
		streetKind(),
		streetDescriptorKind(),
		blpuKind(),
		applicationXRefKind(),
		lpiKind(),
		deliveryPointKind(),
		metaDataKind(),
		successorXRefKind(),
		organisationKind(),
		classificationKind(),
		trailerKind(),
	}
	return buildCatalog(kinds)
}

func buildCatalog(kinds []*Kind) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]*Kind, len(kinds))}
	tables := make(map[string]string, len(kinds))
	for _, k := range kinds {
		if err := validateKind(k); err != nil {
			return nil, err
		}
		if prev, dup := c.byCode[k.Code]; dup {
			return nil, fmt.Errorf("catalog: type code %s claimed by both %s and %s", k.Code, prev.Name, k.Name)
		}
		if prev, dup := tables[k.Table]; dup {
			return nil, fmt.Errorf("catalog: table %s claimed by both %s and %s", k.Table, prev, k.Name)
		}
		c.byCode[k.Code] = k
		tables[k.Table] = k.Name
		c.kinds = append(c.kinds, k)
	}
	sort.Slice(c.kinds, func(i, j int) bool { return c.kinds[i].Code < c.kinds[j].Code })
	return c, nil
}

func validateKind(k *Kind) error {
	if k.Code == "" || k.Name == "" || k.Table == "" {
		return fmt.Errorf("catalog: kind %q missing code, name or table", k.Name)
	}
	if len(k.Fields) == 0 {
		return fmt.Errorf("catalog: %s has no fields", k.Name)
	}
	seen := make(map[string]bool, len(k.Fields))
	k.columns = make([]string, len(k.Fields))
	for i := range k.Fields {
		f := &k.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("catalog: %s field %d has no name", k.Name, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("catalog: %s field %s declared twice", k.Name, f.Name)
		}
		seen[f.Name] = true
		f.Position = i + 1
		switch f.Type {
		case FixedChar, Text:
			if f.Size < 1 {
				return fmt.Errorf("catalog: %s field %s needs a width", k.Name, f.Name)
			}
		case Decimal:
			if f.Precision < 1 || f.Scale < 0 || f.Scale > f.Precision {
				return fmt.Errorf("catalog: %s field %s has precision %d scale %d", k.Name, f.Name, f.Precision, f.Scale)
			}
		}
		k.columns[i] = f.Column()
	}
	for _, name := range k.NaturalKey {
		if !seen[name] {
			return fmt.Errorf("catalog: %s natural key names unknown field %s", k.Name, name)
		}
	}
	return nil
}

// Lookup returns the kind registered for a type code.
func (c *Catalog) Lookup(code string) (*Kind, error) {
	k, ok := c.byCode[code]
	if !ok {
		return nil, &UnknownKindError{Code: code}
	}
	return k, nil
}

// Kinds enumerates all record kinds in type code order.
func (c *Catalog) Kinds() []*Kind { return c.kinds }

// Field constructors for the layout tables below. All fields are nullable
// unless narrowed with notNull; empty CSV fields load as NULL.

func bigint(name string) FieldSpec  { return FieldSpec{Name: name, Type: BigInt, Nullable: true} }
func integer(name string) FieldSpec { return FieldSpec{Name: name, Type: Int, Nullable: true} }
func char(name string, n int) FieldSpec {
	return FieldSpec{Name: name, Type: FixedChar, Size: n, Nullable: true}
}
func decimal(name string, p, s int) FieldSpec {
	return FieldSpec{Name: name, Type: Decimal, Precision: p, Scale: s, Nullable: true}
}
func date(name string) FieldSpec      { return FieldSpec{Name: name, Type: Date, Nullable: true} }
func timeOfDay(name string) FieldSpec { return FieldSpec{Name: name, Type: TimeOfDay, Nullable: true} }
func text(name string, n int) FieldSpec {
	return FieldSpec{Name: name, Type: Text, Size: n, Nullable: true}
}

func (f FieldSpec) notNull() FieldSpec { f.Nullable = false; return f }
func (f FieldSpec) indexed() FieldSpec { f.Index = true; return f }

// headerKind is the type 10 volume header record.
func headerKind() *Kind {
	return &Kind{
		Code:  CodeHeader,
		Name:  "Header",
		Table: "headers",
		Fields: []FieldSpec{
			text("CUSTODIAN_NAME", 40),
			integer("LOCAL_CUSTODIAN_CODE"),
			date("PROCESS_DATE"),
			integer("VOLUME_NUMBER"),
			date("ENTRY_DATE"),
			timeOfDay("TIME_STAMP"),
			text("VERSION", 7),
			char("FILE_TYPE", 1),
		},
	}
}

// streetKind is the type 11 street record.
func streetKind() *Kind {
	return &Kind{
		Code:  CodeStreet,
		Name:  "Street",
		Table: "streets",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("USRN").notNull().indexed(),
			char("RECORD_TYPE", 1),
			integer("SWA_ORG_REF_NAMING"),
			char("STATE", 1),
			date("STATE_DATE"),
			char("STREET_SURFACE", 1),
			char("STREET_CLASSIFICATION", 2),
			integer("VERSION"),
			date("STREET_START_DATE"),
			date("STREET_END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("RECORD_ENTRY_DATE"),
			decimal("STREET_START_X", 8, 2),
			decimal("STREET_START_Y", 9, 2),
			decimal("STREET_START_LAT", 9, 7),
			decimal("STREET_START_LONG", 8, 7),
			decimal("STREET_END_X", 8, 2),
			decimal("STREET_END_Y", 9, 2),
			decimal("STREET_END_LAT", 9, 7),
			decimal("STREET_END_LONG", 8, 7),
			integer("STREET_TOLERANCE"),
		},
		NaturalKey: []string{"USRN"},
	}
}

// streetDescriptorKind is the type 15 street descriptor record. One street
// may carry several descriptors, one per language.
func streetDescriptorKind() *Kind {
	return &Kind{
		Code:  CodeStreetDescriptor,
		Name:  "StreetDescriptor",
		Table: "streetdescriptors",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("USRN").notNull().indexed(),
			text("STREET_DESCRIPTION", 100),
			text("LOCALITY_NAME", 35),
			text("TOWN_NAME", 30),
			text("ADMINISTRATIVE_AREA", 30),
			char("LANGUAGE", 3).notNull(),
			date("START_DATE"),
			date("END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("ENTRY_DATE"),
		},
		NaturalKey: []string{"USRN", "LANGUAGE"},
	}
}

// blpuKind is the type 21 Basic Land and Property Unit record.
func blpuKind() *Kind {
	return &Kind{
		Code:  CodeBLPU,
		Name:  "BLPU",
		Table: "blpus",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("UPRN").notNull().indexed(),
			char("LOGICAL_STATUS", 1),
			char("BLPU_STATE", 1),
			date("BLPU_STATE_DATE"),
			bigint("PARENT_UPRN"),
			decimal("X_COORDINATE", 8, 2),
			decimal("Y_COORDINATE", 9, 2),
			decimal("LATITUDE", 9, 7),
			decimal("LONGITUDE", 8, 7),
			char("RPC", 1),
			integer("LOCAL_CUSTODIAN_CODE"),
			char("COUNTRY", 1),
			date("START_DATE"),
			date("END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("ENTRY_DATE"),
			char("ADDRESSBASE_POSTAL", 1),
			text("POSTCODE_LOCATOR", 8).indexed(),
			bigint("MULTI_OCC_COUNT"),
		},
		NaturalKey: []string{"UPRN"},
	}
}

// applicationXRefKind is the type 23 application cross reference record.
func applicationXRefKind() *Kind {
	return &Kind{
		Code:  CodeApplicationXRef,
		Name:  "ApplicationCrossReference",
		Table: "appxrefs",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("UPRN").notNull().indexed(),
			char("XREF_KEY", 14).notNull(),
			text("CROSS_REFERENCE", 50),
			integer("VERSION"),
			text("SOURCE", 6),
			date("START_DATE"),
			date("END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("ENTRY_DATE"),
		},
		NaturalKey: []string{"XREF_KEY"},
	}
}

// lpiKind is the type 24 Land and Property Identifier record.
func lpiKind() *Kind {
	return &Kind{
		Code:  CodeLPI,
		Name:  "LPI",
		Table: "lpis",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("UPRN").notNull().indexed(),
			char("LPI_KEY", 14).notNull(),
			char("LANGUAGE", 3),
			char("LOGICAL_STATUS", 1),
			date("START_DATE"),
			date("END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("ENTRY_DATE"),
			integer("SAO_START_NUMBER"),
			char("SAO_START_SUFFIX", 2),
			bigint("SAO_END_NUMBER"),
			char("SAO_END_SUFFIX", 2),
			text("SAO_TEXT", 90),
			integer("PAO_START_NUMBER"),
			char("PAO_START_SUFFIX", 2),
			integer("PAO_END_NUMBER"),
			char("PAO_END_SUFFIX", 2),
			text("PAO_TEXT", 90),
			bigint("USRN").notNull(),
			char("USRN_MATCH_INDICATOR", 1),
			text("AREA_NAME", 40),
			text("LEVEL", 30),
			char("OFFICIAL_FLAG", 1),
		},
		NaturalKey: []string{"LPI_KEY"},
	}
}

// deliveryPointKind is the type 28 delivery point address record.
func deliveryPointKind() *Kind {
	return &Kind{
		Code:  CodeDeliveryPoint,
		Name:  "DeliveryPointAddress",
		Table: "dpaddresses",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("UPRN").notNull().indexed(),
			bigint("UDPRN").notNull(),
			text("ORGANISATION_NAME", 60),
			text("DEPARTMENT_NAME", 60),
			text("SUB_BUILDING_NAME", 30),
			text("BUILDING_NAME", 50),
			integer("BUILDING_NUMBER"),
			text("DEPENDENT_THOROUGHFARE", 80),
			text("THOROUGHFARE", 80),
			text("DOUBLE_DEPENDENT_LOCALITY", 35),
			text("DEPENDENT_LOCALITY", 35),
			text("POST_TOWN", 30),
			text("POSTCODE", 8).indexed(),
			char("POSTCODE_TYPE", 1),
			char("DELIVERY_POINT_SUFFIX", 2),
			text("WELSH_DEPENDENT_THOROUGHFARE", 80),
			text("WELSH_THOROUGHFARE", 80),
			text("WELSH_DOUBLE_DEPENDENT_LOCALITY", 35),
			text("WELSH_DEPENDENT_LOCALITY", 35),
			text("WELSH_POST_TOWN", 30),
			text("PO_BOX_NUMBER", 6),
			date("PROCESS_DATE"),
			date("START_DATE"),
			date("END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("ENTRY_DATE"),
		},
		NaturalKey: []string{"UDPRN"},
	}
}

// metaDataKind is the type 29 gazetteer metadata record.
func metaDataKind() *Kind {
	return &Kind{
		Code:  CodeMetaData,
		Name:  "MetaData",
		Table: "metadata",
		Fields: []FieldSpec{
			text("GAZ_NAME", 60),
			text("GAZ_SCOPE", 60),
			text("TER_OF_USE", 60),
			text("LINKED_DATA", 100),
			text("GAZ_OWNER", 15),
			char("NGAZ_FREQ", 1),
			text("CUSTODIAN_NAME", 40),
			bigint("CUSTODIAN_UPRN"),
			integer("LOCAL_CUSTODIAN_CODE"),
			text("CO_ORD_SYSTEM", 40),
			text("CO_ORD_UNIT", 10),
			date("META_DATE"),
			text("CLASS_SCHEME", 60),
			date("GAZ_DATE"),
			char("LANGUAGE", 3),
			text("CHARACTER_SET", 30),
		},
	}
}

// successorXRefKind is the type 30 successor cross reference record.
func successorXRefKind() *Kind {
	return &Kind{
		Code:  CodeSuccessorXRef,
		Name:  "SuccessorCrossReference",
		Table: "succxrefs",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("UPRN").notNull(),
			char("SUCC_KEY", 14).notNull(),
			date("START_DATE"),
			date("END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("ENTRY_DATE"),
			bigint("SUCCESSOR"),
		},
		NaturalKey: []string{"SUCC_KEY"},
	}
}

// organisationKind is the type 31 organisation record.
func organisationKind() *Kind {
	return &Kind{
		Code:  CodeOrganisation,
		Name:  "Organisation",
		Table: "organisations",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("UPRN").notNull().indexed(),
			char("ORG_KEY", 14).notNull(),
			text("ORGANISATION", 100),
			text("LEGAL_NAME", 60),
			date("START_DATE"),
			date("END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("ENTRY_DATE"),
		},
		NaturalKey: []string{"ORG_KEY"},
	}
}

// classificationKind is the type 32 classification record.
func classificationKind() *Kind {
	return &Kind{
		Code:  CodeClassification,
		Name:  "Classification",
		Table: "classifications",
		Fields: []FieldSpec{
			char("CHANGE_TYPE", 1),
			bigint("PRO_ORDER"),
			bigint("UPRN").notNull().indexed(),
			char("CLASS_KEY", 14).notNull(),
			text("CLASSIFICATION_CODE", 6).indexed(),
			text("CLASS_SCHEME", 60),
			decimal("SCHEME_VERSION", 2, 1),
			date("START_DATE"),
			date("END_DATE"),
			date("LAST_UPDATE_DATE"),
			date("ENTRY_DATE"),
		},
		NaturalKey: []string{"CLASS_KEY"},
	}
}

// trailerKind is the type 99 volume trailer record.
func trailerKind() *Kind {
	return &Kind{
		Code:  CodeTrailer,
		Name:  "Trailer",
		Table: "trailers",
		Fields: []FieldSpec{
			integer("NEXT_VOLUME_NUMBER"),
			bigint("RECORD_COUNT"),
			date("ENTRY_DATE"),
			timeOfDay("TIME_STAMP"),
		},
	}
}
