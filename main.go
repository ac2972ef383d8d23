package main

import cmd "github.com/Dhairya-911/vedang-portfolio/internal/cli"

func main() {
	cmd.Execute()
}
