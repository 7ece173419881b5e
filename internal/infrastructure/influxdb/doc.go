// Package influxdb writes line protocol batches through the InfluxDB v2 API.
//
// It wraps the official influxdb-client-go v2 library. Each destination
// names a server URL, an API token, an organisation and a bucket; batches
// are written with the blocking write API at nanosecond precision, so a
// Write call returns only once the server has accepted or rejected the
// batch.
//
// # Usage
//
//	w, err := influxdb.New(config.DestinationConfig{
//	    URL:    "http://localhost:8086",
//	    Type:   config.DestinationInfluxDB2,
//	    Token:  "your-token",
//	    Org:    "home",
//	    Bucket: "mqtt",
//	}, 10*time.Second)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	err = w.Write(ctx, []byte("mqtt.kitchen.temp value=21.5 1700000000000000000"))
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package influxdb
