// Package tasks schedules import tasks that call back into the handle
// endpoint: through Cloud Tasks on GCP, or through the Postgres outbox when
// self-hosted.
package tasks

import "encoding/json"

// Topic tags outbox rows that carry an import task.
const Topic = "sentencing.import.v1"

// Payload is the JSON body the handle endpoint receives.
type Payload struct {
	BucketID string `json:"bucketId"`
	ObjectID string `json:"objectId"`
}

func encode(bucket, object string) ([]byte, error) {
	return json.Marshal(Payload{BucketID: bucket, ObjectID: object})
}
