package simapi

import "github.com/AngelCh415/perftracker/internal/models"

var catalog = []models.Product{
	{ID: 1, Name: "Wireless Mouse", Price: 25.99, Category: "Accessories"},
	{ID: 2, Name: "Mechanical Keyboard", Price: 89.99, Category: "Accessories"},
	{ID: 3, Name: "USB-C Hub", Price: 45.50, Category: "Accessories"},
	{ID: 4, Name: "Gaming Headset", Price: 79.90, Category: "Audio"},
	{ID: 5, Name: "Laptop Stand", Price: 39.99, Category: "Office"},
	{ID: 6, Name: "Webcam HD", Price: 59.99, Category: "Electronics"},
	{ID: 7, Name: "Bluetooth Speaker", Price: 99.99, Category: "Audio"},
	{ID: 8, Name: "External SSD 1TB", Price: 129.99, Category: "Electronics"},
	{ID: 9, Name: "Monitor 27 inch", Price: 249.99, Category: "Electronics"},
	{ID: 10, Name: "Office Chair", Price: 199.99, Category: "Office"},
	{ID: 11, Name: "Desk Lamp", Price: 29.99, Category: "Office"},
	{ID: 12, Name: "Smartphone Stand", Price: 19.99, Category: "Accessories"},
	{ID: 13, Name: "Wireless Charger", Price: 34.99, Category: "Accessories"},
	{ID: 14, Name: "Noise Cancelling Headphones", Price: 199.99, Category: "Audio"},
	{ID: 15, Name: "Tablet 10 inch", Price: 299.99, Category: "Electronics"},
}

// profile drives demand: base daily volume, daily growth rate and noise.
type profile struct {
	base       float64
	growth     float64
	volatility float64
}

var profiles = map[int]profile{
	1:  {800, 0.0010, 0.06},
	2:  {300, 0.0020, 0.08},
	3:  {500, 0.0008, 0.07},
	4:  {250, 0.0015, 0.10},
	5:  {400, 0.0005, 0.06},
	6:  {350, 0.0012, 0.09},
	7:  {200, 0.0018, 0.11},
	8:  {150, 0.0025, 0.09},
	9:  {80, 0.0030, 0.12},
	10: {60, 0.0010, 0.08},
	11: {600, 0.0003, 0.05},
	12: {700, 0.0005, 0.06},
	13: {450, 0.0015, 0.07},
	14: {100, 0.0020, 0.10},
	15: {70, 0.0028, 0.13},
}

// promoPlan places a discount window relative to today: it starts
// startAgo days back and lasts length days.
type promoPlan struct {
	productID int
	discount  float64
	startAgo  int
	length    int
}

var promoPlans = []promoPlan{
	{productID: 4, discount: 15, startAgo: 20, length: 5},
	{productID: 7, discount: 20, startAgo: 12, length: 7},
	{productID: 13, discount: 10, startAgo: 35, length: 4},
}

// Products returns a copy of the catalog.
func Products() []models.Product {
	return append([]models.Product(nil), catalog...)
}
