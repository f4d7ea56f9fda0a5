package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "List every data stream the backend knows about",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		client, err := backendClient(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		streams, err := client.DataStreams(ctx)
		if err != nil {
			return err
		}
		if len(streams) == 0 {
			fmt.Println("no data streams")
			return nil
		}
		for _, s := range streams {
			fmt.Println(s)
		}
		return nil
	},
}
