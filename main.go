package main

import "github.com/mqttscope/mqttscope/cmd/mqttscope"

func main() {
	mqttscope.Main()
}
