package main

import "github.com/dbsmedya/pgbloat/cmd/pgbloat/cmd"

func main() {
	cmd.Execute()
}
