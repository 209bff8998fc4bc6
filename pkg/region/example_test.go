package region_test

import (
	"fmt"

	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/region"
	"github.com/matzehuels/choropleth/pkg/svgdoc"
)

func ExampleResolve() {
	doc, err := svgdoc.Parse([]byte(`<svg xmlns="http://www.w3.org/2000/svg">` +
		`<path id="FR" d="M0 0h1v1z"/>` +
		`<path class="Canada" d="M2 0h1v1z"/>` +
		`<path class="Canada" d="M4 0h1v1z"/>` +
		`</svg>`))
	if err != nil {
		panic(err)
	}

	for _, code := range []string{"fr", "CA"} {
		r, err := region.Resolve(doc, code)
		if err != nil {
			panic(err)
		}
		fmt.Println(r.Code, r.Kind, len(r.Elements))
	}

	_, err = region.Resolve(doc, "XX")
	fmt.Println(errors.GetCode(err))
	// Output:
	// FR single 1
	// CA multi 2
	// UNRESOLVED_REGION
}
