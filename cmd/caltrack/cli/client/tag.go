package client

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mwantia/caltrack/pkg/calibrations"
	"github.com/mwantia/caltrack/pkg/db/models"
	"github.com/spf13/cobra"
)

func NewTagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage calibration tags",
		Long:  "Attach, detach and inspect the tags associated with calibrations.",
	}

	cmd.AddCommand(NewTagAddCommand())
	cmd.AddCommand(NewTagRemoveCommand())
	cmd.AddCommand(NewTagListCommand())
	cmd.AddCommand(NewTagOfCommand())

	return cmd
}

func NewTagAddCommand() *cobra.Command {
	var addedBy string

	cmd := &cobra.Command{
		Use:   "add <calibration-id> <tag-name>",
		Short: "Attach a tag to a calibration",
		Long:  "Attaches a tag to a calibration, creating the tag on first use. Reattaching a previously removed tag reopens the same association.",
		Args:  cobra.ExactArgs(2),
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

			result, err := service.AttachTag(cmd.Context(), id, args[1], addedBy)
			if err != nil {
				return err
			}

			fmt.Printf("Tag '%s' on calibration %d: %s\n", args[1], id, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&addedBy, "by", "", "who attaches the tag (defaults to 'system')")

	return cmd
}

func NewTagRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <calibration-id> <tag-name>",
		Short: "Detach a tag from a calibration",
		Long:  "Detaches a tag from a calibration. Removing a tag that is not attached is a no-op.",
		Args:  cobra.ExactArgs(2),
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

			result, err := service.DetachTag(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}

			fmt.Printf("Tag '%s' on calibration %d: %s\n", args[1], id, result)
			return nil
		},
	}

	return cmd
}

func NewTagListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all known tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closer, err := openLocalService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			tags, err := service.ListAllTags(cmd.Context())
			if err != nil {
				return err
			}

			for _, tag := range tags {
				if tag.Description != "" {
					fmt.Printf("%-24s %s\n", tag.Name, tag.Description)
				} else {
					fmt.Println(tag.Name)
				}
			}
			fmt.Printf("%d tags\n", len(tags))
			return nil
		},
	}

	return cmd
}

func NewTagOfCommand() *cobra.Command {
	var atTime string

	cmd := &cobra.Command{
		Use:   "of <calibration-id>",
		Short: "Show the tags of a calibration",
		Long:  "Shows the tags currently attached to a calibration, or the tags it carried at a past instant when --at is given.",
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

			associations, err := listTags(cmd, service, id, atTime)
			if err != nil {
				return err
			}

			for _, association := range associations {
				fmt.Printf("%-24s added %s by %s\n",
					association.TagName,
					association.AddedAt.Format(time.RFC3339),
					association.AddedBy)
			}
			fmt.Printf("%d tags\n", len(associations))
			return nil
		},
	}

	cmd.Flags().StringVar(&atTime, "at", "", "show tags as of this ISO-8601 instant instead of now")

	return cmd
}

func listTags(cmd *cobra.Command, service *calibrations.Service, calibrationID int64, atTime string) ([]models.TaggedAssociation, error) {
	if atTime != "" {
		return service.GetHistoricalTags(cmd.Context(), calibrationID, atTime)
	}
	return service.GetCurrentTags(cmd.Context(), calibrationID)
}
