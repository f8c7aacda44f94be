// Command clu is a local encrypted secret stash.
package main

import "github.com/nir0s/clu/internal/cli"

func main() {
	cli.Execute()
}
