package main

import "github.com/leavedesk/leave-management/cmd"

func main() {
	cmd.Execute()
}
