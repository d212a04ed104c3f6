package sandbox

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"parsegen/internal/pdftext"
)

// HostSymbols exposes the host package to interpreted code. Keys follow the
// interpreter's "importpath/name" convention.
var HostSymbols = interp.Exports{
	HostPackage + "/pdftext": {
		"Text":      reflect.ValueOf(pdftext.Text),
		"Pages":     reflect.ValueOf(pdftext.Pages),
		"Lines":     reflect.ValueOf(pdftext.Lines),
		"PlainText": reflect.ValueOf(pdftext.PlainText),
	},
}
