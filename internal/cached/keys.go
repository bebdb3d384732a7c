package cached

import "fmt"

// Cache keys follow a fixed grammar so that one glob per scenario covers
// every key derived from it:
//
//	scenario:<id>                         scenario metadata
//	scenario:<id>:latest                  latest version
//	scenario:<id>:version:<n>             one version
//	scenario:<id>:version:<n>:summary     summary generated for a version
//	scenario:<id>:versions                version history
//	scenarios:list                        the scenario listing

const listKey = "scenarios:list"

func scenarioKey(id string) string {
	return "scenario:" + id
}

func latestKey(id string) string {
	return "scenario:" + id + ":latest"
}

func versionKey(id string, number int) string {
	return fmt.Sprintf("scenario:%s:version:%d", id, number)
}

func summaryKey(id string, number int) string {
	return fmt.Sprintf("scenario:%s:version:%d:summary", id, number)
}

func historyKey(id string) string {
	return "scenario:" + id + ":versions"
}

// scenarioPattern matches every cache key derived from one scenario.
func scenarioPattern(id string) string {
	return "scenario:" + id + "*"
}
