package main

import (
	"strconv"

	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/mmdatafocus/boletos_backend/utils"
	"github.com/spf13/cobra"
)

func parseId(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, utils.Validationf("invalid id %q", s)
	}
	return id, nil
}

var lotCmd = &cobra.Command{
	Use:   "lot",
	Short: "Maintain internal lots",
}

var lotCreateCmd = &cobra.Command{
	Use:  "create <name>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		lot, err := models.CreateLot(commandContext(cmd), db, &models.NewLot{Name: args[0]})
		if err != nil {
			return err
		}
		return printJSON(cmd, lot)
	},
}

var lotRenameCmd = &cobra.Command{
	Use:  "rename <id> <name>",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseId(args[0])
		if err != nil {
			return err
		}
		db, err := connect()
		if err != nil {
			return err
		}
		lot, err := models.UpdateLot(commandContext(cmd), db, id, &models.NewLot{Name: args[1]})
		if err != nil {
			return err
		}
		return printJSON(cmd, lot)
	},
}

var lotDeactivateCmd = &cobra.Command{
	Use:  "deactivate <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseId(args[0])
		if err != nil {
			return err
		}
		db, err := connect()
		if err != nil {
			return err
		}
		lot, err := models.DeactivateLot(commandContext(cmd), db, id)
		if err != nil {
			return err
		}
		return printJSON(cmd, lot)
	},
}

var lotGetCmd = &cobra.Command{
	Use:  "get <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseId(args[0])
		if err != nil {
			return err
		}
		db, err := connect()
		if err != nil {
			return err
		}
		lot, err := models.GetLot(commandContext(cmd), db, id)
		if err != nil {
			return err
		}
		return printJSON(cmd, lot)
	},
}

var lotListCmd = &cobra.Command{
	Use:  "list",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		lots, err := models.ListActiveLots(commandContext(cmd), db)
		if err != nil {
			return err
		}
		return printJSON(cmd, lots)
	},
}

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Maintain external unit to lot mappings",
}

var mappingCreateCmd = &cobra.Command{
	Use:  "create <external-name> <lot-id>",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lotId, err := parseId(args[1])
		if err != nil {
			return err
		}
		db, err := connect()
		if err != nil {
			return err
		}
		mapping, err := models.CreateLotMapping(commandContext(cmd), db, &models.NewLotMapping{
			ExternalName:  args[0],
			InternalLotId: lotId,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, mapping)
	},
}

var mappingUpdateCmd = &cobra.Command{
	Use:  "update <id> <external-name> <lot-id>",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseId(args[0])
		if err != nil {
			return err
		}
		lotId, err := parseId(args[2])
		if err != nil {
			return err
		}
		db, err := connect()
		if err != nil {
			return err
		}
		mapping, err := models.UpdateLotMapping(commandContext(cmd), db, id, &models.NewLotMapping{
			ExternalName:  args[1],
			InternalLotId: lotId,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, mapping)
	},
}

var mappingDeleteCmd = &cobra.Command{
	Use:  "delete <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseId(args[0])
		if err != nil {
			return err
		}
		db, err := connect()
		if err != nil {
			return err
		}
		mapping, err := models.DeleteLotMapping(commandContext(cmd), db, id)
		if err != nil {
			return err
		}
		return printJSON(cmd, mapping)
	},
}

var mappingListCmd = &cobra.Command{
	Use:  "list",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		mappings, err := models.ListLotMappings(commandContext(cmd), db)
		if err != nil {
			return err
		}
		return printJSON(cmd, mappings)
	},
}

func init() {
	lotCmd.AddCommand(lotCreateCmd, lotRenameCmd, lotDeactivateCmd, lotGetCmd, lotListCmd)
	mappingCmd.AddCommand(mappingCreateCmd, mappingUpdateCmd, mappingDeleteCmd, mappingListCmd)
	rootCmd.AddCommand(lotCmd, mappingCmd)
}
