package format

// pep484Capitalized maps builtin container names to their typing generics.
var pep484Capitalized = map[string]string{
	"list":           "List",
	"dict":           "Dict",
	"tuple":          "Tuple",
	"set":            "Set",
	"frozenset":      "FrozenSet",
	"generator":      "Generator",
	"type":           "Type",
	"coroutine":      "Coroutine",
	"asyncgenerator": "AsyncGenerator",
}

// pep484Compat lists builtins a wider builtin accepts in a parameter
// position, e.g. an int is acceptable wherever a float is.
var pep484Compat = []struct {
	narrow, wide string
}{
	{"int", "float"},
	{"int", "complex"},
	{"float", "complex"},
	{"bytearray", "bytes"},
	{"memoryview", "bytes"},
}
