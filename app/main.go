// Command app is the WebAssembly build of the dashboard.
package main

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"

	"github.com/kidandcat/portfolio/internal/ui"
)

func main() {
	ui.Register()
	app.RunWhenOnBrowser()
}
