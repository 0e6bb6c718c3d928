package static

type document struct {
	PointerSize uint32     `yaml:"pointerSize"`
	Classes     []classDoc `yaml:"classes"`
}

type classDoc struct {
	Name      string     `yaml:"name"`
	Kind      string     `yaml:"kind"`
	Element   string     `yaml:"element"`
	Fields    []fieldDoc `yaml:"fields"`
	Size      uint32     `yaml:"size"`
	ByRefLike bool       `yaml:"byrefLike"`
	SIMD      bool       `yaml:"simd"`
	Explicit  bool       `yaml:"explicit"`
	Normalize bool       `yaml:"normalize"`
}

type fieldDoc struct {
	Offset *uint32 `yaml:"offset"`
	Name   string  `yaml:"name"`
	Type   string  `yaml:"type"`
}

type classKind uint8

const (
	kindStruct classKind = iota
	kindClass
	kindArray
)

func (k classKind) String() string {
	switch k {
	case kindStruct:
		return "struct"
	case kindClass:
		return "class"
	case kindArray:
		return "array"
	default:
		return "unknown"
	}
}

func parseKind(s string) (classKind, bool) {
	switch s {
	case "", "struct":
		return kindStruct, true
	case "class":
		return kindClass, true
	case "array":
		return kindArray, true
	default:
		return 0, false
	}
}
