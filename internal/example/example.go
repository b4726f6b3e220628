package example

import "dedisp/internal/example/survey"

var menu = [...]struct {
	name string
	call func() []byte
}{
	{"Apertif", survey.Apertif},
	{"LOFAR", survey.LOFAR},
	{"Host", survey.Host},
	{"Reference", survey.Reference},
}

func Names() []string {
	names := make([]string, len(menu))
	for i := range &menu {
		names[i] = menu[i].name
	}
	return names
}

func Generate(name string) []byte {
	for i := range &menu {
		if menu[i].name == name {
			return menu[i].call()
		}
	}
	return nil
}
