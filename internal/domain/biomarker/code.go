package biomarker

// Code enumerates the biomarkers the panel tracks. The set is closed;
// CodeUnknown captures any wire code outside it so imports can ignore
// unrecognized biomarkers without aborting.
type Code int

const (
	CodeUnknown Code = iota
	CodeCholesterol
	CodeTriglycerides
	CodeVitaminD
	CodeOmega3Index
)

type codeInfo struct {
	wire    string // code.coding[0].code on the wire (LOINC where applicable)
	display string
	unit    string
}

var codeTable = map[Code]codeInfo{
	CodeCholesterol:   {wire: "2093-3", display: "Colesterol total", unit: "mg/dL"},
	CodeTriglycerides: {wire: "2571-8", display: "Trigliceridos", unit: "mg/dL"},
	CodeVitaminD:      {wire: "14635-7", display: "Vitamina D", unit: "ng/mL"},
	CodeOmega3Index:   {wire: "omega3_index", display: "Indice Omega-3", unit: "%"},
}

// Codes lists the known biomarkers in panel column order.
var Codes = []Code{CodeCholesterol, CodeTriglycerides, CodeVitaminD, CodeOmega3Index}

// ParseCode maps a wire code to its variant. Unrecognized codes map to
// CodeUnknown rather than failing.
func ParseCode(wire string) Code {
	for c, info := range codeTable {
		if info.wire == wire {
			return c
		}
	}
	return CodeUnknown
}

func (c Code) Wire() string {
	return codeTable[c].wire
}

func (c Code) Display() string {
	return codeTable[c].display
}

func (c Code) Unit() string {
	return codeTable[c].unit
}

func (c Code) String() string {
	if c == CodeUnknown {
		return "unknown"
	}
	return codeTable[c].wire
}
