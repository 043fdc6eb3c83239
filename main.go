/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "adsbridge/cmd"

func main() {
	cmd.Execute()
}
