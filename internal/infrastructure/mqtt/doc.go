// Package mqtt provides MQTT client connectivity for Gray Logic Bluetooth.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// Remote Bluetooth scanners publish observed advertisements to the broker;
// this service subscribes and maintains the advertisement store. The broker
// decouples the service from individual scanner firmware:
//
//	Remote Scanners → MQTT Broker → Gray Logic Bluetooth
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllScannerAdvertisements(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
