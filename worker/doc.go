// Package worker provides a worker pool for processing many documents in
// parallel. The core pipeline is single-threaded per document; parallelism
// across documents belongs here, one request per document.
//
// Example usage:
//
//	pool := worker.NewPool(processor, 4)
//	defer pool.Close()
//
//	for _, doc := range documents {
//	    pool.Submit(worker.Job{Document: doc})
//	}
//
//	for result := range pool.Results() {
//	    if result.Error != nil {
//	        // Handle error
//	    }
//	    // Use result.Output
//	}
package worker
