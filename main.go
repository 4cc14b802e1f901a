package main

import "github.com/ValentinKolb/dIPC/cmd"

func main() {
	cmd.Execute()
}
