package main

import "github.com/spendflow/expense-approval/cmd"

func main() {
	cmd.Execute()
}
