package main

import "github.com/ValentinKolb/monstore/cmd"

func main() {
	cmd.Execute()
}
