// Command heapctl runs allocation workloads against the heapkit allocator.
package main

import "os"

func main() {
	os.Exit(execute())
}
