package client

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mwantia/caltrack/pkg/calibrations"
	"github.com/spf13/cobra"
)

func NewCalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibration",
		Short: "Manage calibration records",
		Long:  "Create, inspect and list calibration measurement records.",
	}

	cmd.AddCommand(NewCalibrationCreateCommand())
	cmd.AddCommand(NewCalibrationGetCommand())
	cmd.AddCommand(NewCalibrationListCommand())

	return cmd
}

func NewCalibrationCreateCommand() *cobra.Command {
	var calibrationType string
	var value float64
	var owner string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new calibration",
		Long:  "Creates a new immutable calibration record with a generated identifier.",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closer, err := openLocalService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			calibration, err := service.CreateCalibration(cmd.Context(), calibrationType, value, owner)
			if err != nil {
				return err
			}

			fmt.Printf("Created calibration %d (%s=%g by %s)\n",
				calibration.ID, calibration.Type, calibration.Value, calibration.Owner)
			return nil
		},
	}

	cmd.Flags().StringVar(&calibrationType, "type", "", "calibration type (e.g. offset, gain)")
	cmd.Flags().Float64Var(&value, "value", 0, "measured value")
	cmd.Flags().StringVar(&owner, "owner", "", "owner of the calibration")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func NewCalibrationGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single calibration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid calibration id %q: %w", args[0], err)
			}

			service, closer, err := openLocalService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			calibration, err := service.GetCalibration(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("ID:      %d\n", calibration.ID)
			fmt.Printf("Type:    %s\n", calibration.Type)
			fmt.Printf("Value:   %g\n", calibration.Value)
			fmt.Printf("Owner:   %s\n", calibration.Owner)
			fmt.Printf("Created: %s\n", calibration.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}

	return cmd
}

func NewCalibrationListCommand() *cobra.Command {
	var owner string
	var calibrationType string
	var tagName string
	var tagAtTime string
	var after string
	var before string
	var page int
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List calibrations with filters",
		Long:  "Lists calibrations filtered by owner, type, creation date range and tag (current or as of a past instant).",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closer, err := openLocalService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			result, err := service.ListCalibrations(cmd.Context(), calibrationFilter(owner, calibrationType, after, before, tagName, tagAtTime), page, limit)
			if err != nil {
				return err
			}

			for _, calibration := range result.Items {
				fmt.Printf("%d  %-12s %-12g %-12s %s\n",
					calibration.ID, calibration.Type, calibration.Value,
					calibration.Owner, calibration.CreatedAt.Format(time.RFC3339))
			}
			fmt.Printf("Page %d/%d (%d total)\n", result.Page, result.Pages, result.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner")
	cmd.Flags().StringVar(&calibrationType, "type", "", "filter by calibration type")
	cmd.Flags().StringVar(&tagName, "tag", "", "filter by tag name")
	cmd.Flags().StringVar(&tagAtTime, "tag-at", "", "evaluate the tag filter as of this ISO-8601 instant")
	cmd.Flags().StringVar(&after, "after", "", "only calibrations created at or after this ISO-8601 instant")
	cmd.Flags().StringVar(&before, "before", "", "only calibrations created at or before this ISO-8601 instant")
	cmd.Flags().IntVar(&page, "page", 1, "page number (1-indexed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default 20)")

	return cmd
}

func calibrationFilter(owner, calibrationType, after, before, tagName, tagAtTime string) calibrations.ListFilter {
	return calibrations.ListFilter{
		Owner:         owner,
		Type:          calibrationType,
		CreatedAfter:  after,
		CreatedBefore: before,
		TagName:       tagName,
		TagAtTime:     tagAtTime,
	}
}
