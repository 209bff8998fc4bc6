package style_test

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/matzehuels/choropleth/pkg/errors"
	"github.com/matzehuels/choropleth/pkg/style"
)

func ExampleApplyFill() {
	el := etree.NewElement("path")
	el.CreateAttr("style", "stroke:#000;fill:#fff;opacity:0.8")

	if err := style.ApplyFill(el, "#3b82f6"); err != nil {
		panic(err)
	}
	fmt.Println(el.SelectAttrValue("style", ""))
	fmt.Println(el.SelectAttrValue("fill", ""))
	// Output:
	// stroke:#000;fill:#3b82f6;opacity:0.8
	// #3b82f6
}

func ExampleApplyFill_malformed() {
	el := etree.NewElement("path")
	el.CreateAttr("style", "stroke")

	err := style.ApplyFill(el, "#3b82f6")
	fmt.Println(errors.GetCode(err))
	fmt.Println(el.SelectAttrValue("style", ""))
	// Output:
	// MALFORMED_STYLE
	// fill:#3b82f6
}

func ExampleParse() {
	d, err := style.Parse(" stroke : #000 ;; opacity:0.5; ")
	if err != nil {
		panic(err)
	}
	d.Set("fill", "red")
	fmt.Println(d.Len(), d.String())
	// Output:
	// 3 stroke:#000;opacity:0.5;fill:red
}
