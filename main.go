package main

import "github.com/pitlap/race-analytics-service-go/cmd"

func main() {
	cmd.Execute()
}
