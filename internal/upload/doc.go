// Package upload stores images uploaded from entity forms, either on local
// disk or in an S3 bucket, and serves the POST /upload endpoint.
package upload
