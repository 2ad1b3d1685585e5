package main

import (
	"github.com/reekid420/website-searcher/cmd"
	"github.com/reekid420/website-searcher/internal/shared"
)

func main() {
	shared.InitLogger("websearcher")
	cmd.Execute()
}
