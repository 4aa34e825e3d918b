package main

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/config"
	"github.com/danpilch/transitpal/internal/favorites"
	"github.com/danpilch/transitpal/internal/transit"
)

type FavoritesCmd struct {
	List   FavoritesListCmd   `cmd:"" help:"List favorites"`
	Add    FavoritesAddCmd    `cmd:"" help:"Add a favorite, e.g. train:41320 or bus:22:1836:Northbound"`
	Remove FavoritesRemoveCmd `cmd:"" help:"Remove a favorite"`
}

// FavoritesFile is the --file flag shared by the favorites subcommands.
type FavoritesFile struct {
	File string `help:"Favorites file (defaults to favorites_file from the config)" type:"path"`
}

// path prefers --file, then the config file, then the default location.
func (f FavoritesFile) path(g *Globals, logger *logrus.Logger) string {
	if f.File != "" {
		return f.File
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		logger.WithField("error", err).Debug("no usable config, using default favorites file")
		return favorites.DefaultPath()
	}
	return cfg.FavoritesFile
}

type FavoritesListCmd struct {
	FavoritesFile
}

func (c *FavoritesListCmd) Run(g *Globals, logger *logrus.Logger) error {
	keys, err := favorites.Load(c.path(g, logger))
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

type FavoritesAddCmd struct {
	FavoritesFile

	Key string `arg:"" help:"Favorite key"`
}

func (c *FavoritesAddCmd) Run(g *Globals, logger *logrus.Logger) error {
	key, err := transit.ParseFavoriteKey(c.Key)
	if err != nil {
		return err
	}

	path := c.path(g, logger)
	keys, err := favorites.Load(path)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		logger.WithField("key", key).Info("already a favorite")
		return nil
	}

	if err := favorites.Save(path, append(keys, key)); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"key": key, "path": path}).Info("favorite added")
	return nil
}

type FavoritesRemoveCmd struct {
	FavoritesFile

	Key string `arg:"" help:"Favorite key"`
}

func (c *FavoritesRemoveCmd) Run(g *Globals, logger *logrus.Logger) error {
	key, err := transit.ParseFavoriteKey(c.Key)
	if err != nil {
		return err
	}

	path := c.path(g, logger)
	keys, err := favorites.Load(path)
	if err != nil {
		return err
	}

	kept := slices.DeleteFunc(keys, func(k transit.FavoriteKey) bool { return k == key })
	if err := favorites.Save(path, kept); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"key": key, "path": path}).Info("favorite removed")
	return nil
}
