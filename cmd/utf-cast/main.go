package main

// main is the entry point for the utf-cast application. Build-time
// variables are declared in root.go and populated via -ldflags.
func main() {
	Execute()
}
