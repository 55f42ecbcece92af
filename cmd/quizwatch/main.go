package main

import "github.com/quizwatch/quizwatch/internal/cli"

func main() {
	cli.Execute()
}
