package main

import "github.com/frahmantamala/order-fulfillment/cmd"

func main() {
	cmd.Execute()
}
