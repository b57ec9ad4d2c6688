// Command flistctl inspects and converts flists.
package main

func main() {
	execute()
}
