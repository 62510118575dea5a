// Command baglink is the container-relationship tracking CLI.
package main

import "github.com/parcelmesh/baglink/internal/cli"

func main() {
	cli.Execute()
}
