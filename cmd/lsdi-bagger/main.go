// lsdi-bagger makes BagIt bags for digitized books from the Large Scale
// Digitization Initiative.
//
// Usage:
//
//	lsdi-bagger [flags] ID...
//	lsdi-bagger -f ids.txt [flags]
//	lsdi-bagger --generate-config lsdi-bagger.toml -o /data/bags
//	lsdi-bagger validate BAG...
//
// Each ID is a Digitization Workflow item id. Items are looked up, their
// files gathered, and a bag made for each inside the output directory.
package main

func main() {
	Execute()
}
