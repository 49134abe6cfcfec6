// Package blobvault provides adaptive uploads to S3-compatible object stores.
// It classifies each upload by declared size and picks the cheapest safe
// transfer strategy: a single PUT for small objects, a concurrent multipart
// session for large ones, and strictly sequential part streaming for huge
// ones where memory matters more than wall-clock time.
//
// Multipart transfers are all-or-nothing: any part failure aborts the whole
// session and nothing is committed. Strategy selection, chunk sizing, and the
// concurrency ladder are tunable per client.
//
// Example usage:
//
//	client, err := blobvault.New(
//	    blobvault.WithBucket("my-bucket"),
//	    blobvault.WithRegion("us-west-2"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	f, err := os.Open("dataset.bin")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	outcome, err := client.Upload(ctx, "datasets/dataset.bin", f, size)
package blobvault
