// Command sentencing-data runs migrations, loads local export files and
// schedules imports outside the HTTP trigger.
package main

func main() {
	Execute()
}
