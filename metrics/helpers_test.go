package metrics

import "github.com/pithecene-io/beacon/impression"

func impressionContent(id string) impression.Content {
	return impression.Content{ContentID: id}
}
